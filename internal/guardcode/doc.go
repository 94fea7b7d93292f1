// Package guardcode derives Steam Guard login codes and confirmation
// signatures. Both derivations are pure functions of a secret and a
// server timestamp; nothing here touches the network.
package guardcode
