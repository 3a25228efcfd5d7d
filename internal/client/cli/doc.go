// Package cli implements videoctl, the command-line client for videofeed.
//
// API commands (list, upload, caption, delete, transcode, login) talk to a
// running server. Maintenance commands (migrate, seed, cache-headers,
// hash-password) work directly against the database, the bucket or the
// local terminal and read the server configuration instead.
package cli
