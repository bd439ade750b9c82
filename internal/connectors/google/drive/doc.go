// Package drive implements a document source over Google Drive folders.
//
// Regular files in a supported format are downloaded as-is. Google Docs are
// exported as plain text and Google Sheets as CSV, so the plaintext
// normaliser can ingest them.
package drive
