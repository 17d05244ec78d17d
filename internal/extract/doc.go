// Package extract turns submitted content into plain text an LLM can read.
//
// Pasted text passes through untouched. Uploaded files arrive base64
// encoded, optionally as a data URL, and are decoded and then converted by
// file extension: HTML is sanitized and rendered as Markdown, Word documents
// and PDFs have their text pulled out, and everything else is read as UTF-8.
package extract
