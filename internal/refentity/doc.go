// Package refentity resolves publisher and author names to shared reference
// rows. Resolution is identity only: an existing row is returned as is and
// never updated. Callers pass the transaction the lookup should run in.
package refentity
