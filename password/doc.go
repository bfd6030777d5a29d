// Package password provides the Argon2id credential hasher that ships as the
// engine's default CredentialVerifier.
//
// Hashes use the PHC string format ($argon2id$v=...$m=...,t=...,p=...$salt$hash)
// so parameters travel with the hash and verification never depends on the
// currently configured costs.
//
// The credential check itself stays an injected dependency of the engine;
// hosts with an existing hashing scheme supply their own verifier and never
// import this package.
package password
