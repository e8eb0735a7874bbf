// Package security keeps the registry of players and their access tokens.
//
// Logging in with an unknown name registers a new human player. Logging in
// again with the right password issues a fresh token; every issued token
// stays valid for the life of the process. A built-in computer player named
// "Computer" is always registered and can be challenged but never logged in
// as.
//
// Passwords are stored as bcrypt hashes. Registered players can be written
// to a PlayerStore so boards restored after a restart can resolve them.
package security
