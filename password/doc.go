// Package password implements Argon2id hashing with PHC-formatted encoded
// hashes. Registration passwords are hashed here before anything reaches the
// ephemeral store; plaintext never persists anywhere.
package password
