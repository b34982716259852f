// Package testutil provides fixtures shared by the synchronizer tests:
// on-disk git repositories built with go-git, scripted executors, and
// generators for benign and malicious release archives.
package testutil

// Commit identity used for fixture repositories.
const (
	TestAuthor = "Test User"
	TestEmail  = "test@example.com"
)

// Repository URLs used across tests.
const (
	TestRepoURL    = "https://github.com/example42/saidata.git"
	TestRepoSSHURL = "git@github.com:example42/saidata.git"
	TestBranch     = "main"
)

// TestSaidata is a minimal saidata document.
const TestSaidata = `version: "0.3"
metadata:
  name: nginx
  description: HTTP and reverse proxy server
packages:
  - name: nginx
    package_name: nginx
`

// CatalogFiles returns a small catalog tree in the hierarchical layout
// software/<prefix>/<name>/default.yaml.
func CatalogFiles() map[string]string {
	return map[string]string{
		"software/ng/nginx/default.yaml": TestSaidata,
		"software/re/redis/default.yaml": `version: "0.3"
metadata:
  name: redis
`,
		"software/po/postgresql/default.yaml": `version: "0.3"
metadata:
  name: postgresql
`,
		"README.md": "# saidata\n",
	}
}
