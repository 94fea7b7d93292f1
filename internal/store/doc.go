// Package store provides the encrypted on-disk manifest holding every
// enrolled account's secrets.
//
// The on-disk format is the SDA-compatible envelope: cleartext metadata
// (format version, PBKDF2 salt, AES IV) beside an AES-256-CBC ciphertext
// of the JSON account list. The same envelope wraps per-account export
// blobs so a single account can move between manifests without re-keying
// either one. All mutating methods are concurrency-safe via internal
// locking; cross-process locking of the manifest file is the caller's
// responsibility.
package store
