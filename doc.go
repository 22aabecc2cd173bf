// Package users provides a reusable user-account subsystem: email based
// identity, self service registration, email activation and password policy
// enforcement, meant to be embedded in a larger application.
//
// Activation tokens:
//   - The ActivationTokenEngine derives stateless, tamper-evident tokens of
//     the form "{base36 day number}-{signature}". The signature is a keyed
//     hash over the account id, normalized email, last login stamp and the
//     issuance day, so nothing has to be persisted per token.
//   - Expiry is day arithmetic on the encoded day number. Single use is an
//     emergent property: activating with auto login updates the last login
//     stamp, which changes the fingerprint and retires the token. Hosts that
//     disable auto login accept reusable tokens until expiry.
//
// Account lifecycle:
//   - Accounts carry an AccountStatus (pending, active, deactivated) that is
//     persisted via Bun. The AccountStateMachine centralizes the transition
//     graph; the activation flow only ever flips pending accounts, while
//     admin deactivation and reactivation go through explicit transitions.
//   - Lifecycle.Create normalizes the email, applies the configured initial
//     status and maps duplicate inserts to ErrDuplicateEmail.
//
// Collaborators:
//   - Persistence is behind the AccountStore interface, with a Bun backed
//     implementation in this package; mail transport is behind Mailer. Both
//     are injectable, so hosts swap in their own without touching the flows.
//   - ActivitySink is a light-weight audit emitter used by the commands, the
//     state machine and the bootstrap step. Sinks run best-effort (errors
//     are logged) so you can forward to a database or queue without blocking
//     registration.
package users
