// Package cache tracks locally synchronized saidata repositories.
//
// Each repository copy lives in its own directory under the cache root,
// named by Key(url, branch). A single metadata file,
// .repository_metadata.json, records when each copy was last updated,
// how it was fetched and how large it is:
//
//	{
//	  "cache_version": "1.0",
//	  "last_updated": 1767225600.0,
//	  "repositories": {
//	    "saidata_3f1c9a0b2d4e": {
//	      "url": "https://github.com/example42/saidata.git",
//	      "branch": "main",
//	      "local_path": "/home/me/.sai/cache/repositories/saidata_3f1c9a0b2d4e",
//	      "last_updated": 1767225600.0,
//	      "is_git_repo": true,
//	      "auth_type": "",
//	      "size_bytes": 5242880,
//	      "file_count": 1834
//	    }
//	  }
//	}
//
// # Validity
//
// An entry is valid when its directory exists and it was updated within
// the TTL. Expiry only flips validity; files are removed solely by Clear,
// ClearAll or an explicit sweep (CleanupExpired, CleanupInvalid,
// CleanupOld, CleanupToSize or a StartGC collector).
//
// # Concurrency
//
// Metadata is re-read on every call and written with a temp file and
// rename, so readers never observe partial JSON. There is no cross-process
// lock: concurrent writers to the same key race and the last write wins.
package cache
