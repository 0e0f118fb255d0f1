// Package relay implements the server role: a blind forwarder that secures a
// per-session outer AES layer with each client, tracks channel membership and
// routes opaque inner ciphertexts between members. It never holds material
// that would decrypt the chat itself.
package relay

import "github.com/nodecrypt/nodecrypt/lib/util/logger"

var log = logger.GetNodeCryptLogger()
