// Package users provides a reusable account extension for web
// applications: email based identity with storage backed uniqueness,
// account confirmation through signed tokenized links, and admin
// surfaces that guard against self deletion and self lockout.
//
// Lifecycle:
//   - Users.Save carries the whole create/update path: password hashing
//     (or an unusable placeholder), staff default stamping, username
//     defaulting and normalization, duplicate email enforcement, and the
//     confirmation email dispatched on first save of an active account.
//   - Confirmer renders and sends the confirmation message. Links embed a
//     base64 user id plus a token bound to the user's mutable state, so
//     outstanding links die the moment a password is set. Tokens are
//     never stored.
//
// Admin surfaces:
//   - AdminController is the staff changelist with bulk actions
//     (confirmation resend, activate/deactivate, delete). Every delete
//     entry point compares canonical ids and refuses to remove the acting
//     user.
//   - ProfileController exposes exactly one document, the signed in
//     user's own record, and redirects every list or create attempt back
//     to it.
package users
