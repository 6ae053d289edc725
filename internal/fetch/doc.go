// Package fetch retrieves remote payloads over HTTP.
//
// A Fetcher performs exactly one GET per call and decodes the body
// according to the requested content kind:
//
//   - text: decoded to UTF-8 using the declared or sniffed charset
//   - csv: validated as UTF-8, with a leading byte order mark removed
//   - excel: raw bytes
//   - json: parsed into a structured value with numbers kept as json.Number
//
// Transport failures, timeouts, non-2xx responses and oversized bodies are
// reported as model.ErrNetwork; bodies that do not match their kind are
// reported as model.ErrDecode. There are no retries.
//
// Requests can be routed through a SOCKS5 proxy with WithProxy.
package fetch
