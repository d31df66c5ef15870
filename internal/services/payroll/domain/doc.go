// Package domain holds the membership and payroll state machine.
//
// A participant moves Unjoined → Joined → Claimed. Commands are decided
// against the current State into events; Fold applies those events. Neither
// step sees plaintext: state carries only ciphertext handles and flags.
package domain
