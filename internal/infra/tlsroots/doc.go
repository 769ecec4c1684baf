// Package tlsroots builds the trusted root pool used when fetching remote
// snapshot archives over HTTPS.
//
// The pool starts from the system roots and can be extended with private CA
// bundles, either a single PEM file or a directory of .pem, .crt and .cer
// files.
package tlsroots
