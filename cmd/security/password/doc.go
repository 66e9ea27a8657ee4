// Package password verifies stored password hashes and mints new ones.
//
// Stored hashes are treated as untrusted input. Two encodings are accepted:
//   - bcrypt ($2a$, $2b$, $2y$), which is what the registration flow writes;
//   - Argon2id in PHC form ($argon2id$v=19$m=..,t=..,p=..$salt$key).
//
// Argon2id hashes whose cost parameters exceed twice the configured ceiling
// are refused instead of verified.
package password
