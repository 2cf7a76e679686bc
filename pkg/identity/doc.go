// Package identity implements the user store of filevault: registration with
// bcrypt password hashing and credential verification.
//
// Authentication deliberately returns the same ErrInvalidCredentials for an
// unknown username and a wrong password, and burns a bcrypt comparison on the
// unknown-username path so both failures cost roughly the same time. This
// prevents user enumeration through error messages or timing.
//
// The Session value returned by Authenticate is the authenticated-caller
// token passed by value into the namespace and sharing services; it carries
// the user id and nothing secret.
//
// Persistence is abstracted behind the Storage interface; implementations
// live in pkg/store.
package identity
