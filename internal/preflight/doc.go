// Package preflight provides readiness checks for external services
// and filesystem paths that cardscan depends on.
//
// These checks run in two contexts:
//   - cardscand calls RunAll at startup and logs every failed check, so a
//     missing credential shows up before the first scan instead of as a
//     batch of provider errors.
//   - The CLI "cardscan status" command renders the same results next to
//     the server probe.
package preflight
