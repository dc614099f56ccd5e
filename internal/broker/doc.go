// Package broker carries tab close signals between the coordinator and the
// browser extension. The extension polls for a close signal after delivering
// a result; the broker hands the signal out exactly once per session so two
// polling tabs never both act on it.
package broker
