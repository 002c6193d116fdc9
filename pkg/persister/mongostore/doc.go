// Package mongostore stores entity state in a MongoDB collection.
//
// A transition is a single UpdateOne whose filter matches the document id and
// the expected state:
//
//	{_id: id, state: "processing"}
//	{_id: id, state: {$in: ["new", null]}}   // expected is the start state
//
// MongoDB applies single-document updates atomically, so of two concurrent
// transitions from the same state only one matches. Run the persister inside
// a mongo.Session transaction to tie the state change to other writes.
package mongostore
