// Package remote exposes the watched shared folder as a listing of file
// descriptors and a way to fetch each file's bytes.
//
// The Dropbox source downloads the shared folder once per tick as a zip
// archive (the dl=1 form of the shared link) and serves both List and Fetch
// from that archive. Directories and hidden files are skipped. Each
// descriptor carries a fingerprint derived from archive metadata so the
// change detector can notice modified files.
package remote
