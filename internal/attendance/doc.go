// Package attendance is the reconciliation engine of the kiosk: it loads the
// roster, parses QR payloads into identities, records presence in a ledger and
// derives the absence list as roster minus present set.
//
// Names are the join key everywhere. Both the roster loader and the payload
// parser pass them through NormalizeName, so a badge printing "José" with a
// combining accent still matches the roster row "josé " once both are
// trimmed, NFC composed and upper-cased. Accents are kept, not folded.
package attendance
