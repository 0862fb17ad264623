// Package types defines the JSON bodies exchanged by the HTTP API: the
// evaluation request decoder, the evaluation response in its established key
// layout, element listings and the error envelope shared by every endpoint.
package types
