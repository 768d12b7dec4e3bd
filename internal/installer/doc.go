// Package installer fetches the vendored engines into bin/.
//
// Every tool has a per-platform Source: a release URL plus the artifact kind
// (raw executable, zip, tar.gz or a single gzip stream). Downloads go to a
// private staging directory inside bin/, the executable is picked out of the
// archive and renamed into place, and the staging directory is removed. Files
// in bin/ that the installer did not create are never touched.
//
// An exclusive file lock on bin/.install.lock keeps concurrent installs (for
// example two terminals running `univdl deps install`) from racing on the
// same files.
package installer
