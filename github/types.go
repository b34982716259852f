package github

import "time"

// Release is the subset of a GitHub release needed to fetch its content.
type Release struct {
	TagName     string
	Name        string
	Draft       bool
	Prerelease  bool
	PublishedAt time.Time

	// TarballURL and ZipballURL are the API-generated source archives.
	TarballURL string
	ZipballURL string

	Assets []Asset
}

// Asset is one uploaded release file.
type Asset struct {
	ID          int64
	Name        string
	DownloadURL string
	Size        int64
	ContentType string
}

// FindAsset returns the asset called name.
func (r *Release) FindAsset(name string) (Asset, bool) {
	for _, a := range r.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}
