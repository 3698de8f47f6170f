// Package normalize turns raw filing documents (MIME web archives, HTML/XHTML
// exports) into plain readable text for the section locator.
//
// The output keeps three in-band markers that downstream steps rely on:
// "Table: " ... "End of table" around every table, and PageBreak between
// pages when the source is paginated.
//
// Normalization never fails: a malformed boundary, an unparsable document or
// an empty input degrade to an empty string for that call.
package normalize
