package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example42/sai-suite-sub001/git"
	"github.com/example42/sai-suite-sub001/tarball"
	"github.com/example42/sai-suite-sub001/transport"
)

// State is the synchronization state of the configured repository.
type State string

const (
	StateUnknown   State = "UNKNOWN"
	StateAvailable State = "AVAILABLE"
	StateUpdating  State = "UPDATING"
	StateError     State = "ERROR"
	StateOffline   State = "OFFLINE"
)

// Status is derived on demand and never persisted.
type Status struct {
	State           State
	URL             string
	Branch          string
	LocalPath       string
	CacheExists     bool
	CacheValid      bool
	UpdateAvailable bool
	LastUpdated     time.Time
	Age             time.Duration

	// Transport names how the cached copy was fetched ("git" or "tarball").
	Transport    string
	ReleaseTag   string
	ErrorMessage string
}

// Resolved is the outcome of Get.
type Resolved struct {
	// Path is the catalog file returned by the loader.
	Path string

	// RepoPath is the repository root the file was found in.
	RepoPath string

	// Stale is true when the copy is past its TTL and could not be refreshed.
	Stale bool
	Age   time.Duration

	// Hint is a staleness message suitable for showing to users.
	Hint string
}

// CatalogLoader finds a software entry in a repository checkout. It
// returns a *NotFoundError when the repository has no entry for software.
type CatalogLoader interface {
	Load(ctx context.Context, repoPath, software string) (string, error)
}

// Lister is implemented by loaders that can enumerate the software names
// in a repository. The manager uses it to suggest near matches.
type Lister interface {
	List(ctx context.Context, repoPath string) ([]string, error)
}

// CredentialStore supplies credentials for repository URLs. GetCredentials
// returns nil, nil when none are stored.
type CredentialStore interface {
	GetCredentials(ctx context.Context, url string) (*transport.Credentials, error)
	StoreCredentials(ctx context.Context, url string, creds *transport.Credentials) error
}

// NotFoundError reports a software entry missing from the repository.
type NotFoundError struct {
	Software    string
	Searched    []string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "software %q not found in repository", e.Software)
	if len(e.Searched) > 0 {
		fmt.Fprintf(&b, " (searched %s)", strings.Join(e.Searched, ", "))
	}
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, "; did you mean %s?", strings.Join(e.Suggestions, ", "))
	}
	return b.String()
}

// GitFetcher is the git transport as seen by the manager.
// *git.Transport implements it.
type GitFetcher interface {
	IsAvailable() bool
	Clone(ctx context.Context, url, target string, opts git.CloneOptions) transport.Result
	Update(ctx context.Context, dir string, auth *transport.Credentials) transport.Result
}

// ReleaseFetcher is the release archive transport as seen by the manager.
// *tarball.Transport implements it.
type ReleaseFetcher interface {
	GetLatestRelease(ctx context.Context, repoURL string, auth *transport.Credentials) (*tarball.ReleaseInfo, error)
	DownloadAndExtract(ctx context.Context, release *tarball.ReleaseInfo, target string, auth *transport.Credentials) transport.Result
}
