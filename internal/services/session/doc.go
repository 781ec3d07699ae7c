// Package session owns the lifetime of a logged-in participant's keys.
//
// A Session is created by Login and destroyed by Logout; services that need
// the private key receive the Session explicitly instead of reading global
// state.
package session
