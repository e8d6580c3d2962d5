// Package chat parses exported chat transcripts and the voice-note filenames
// that accompany them.
//
// The primary use cases are:
//   - Parsing message lines in the "DD/M/YYYY, H:MM a.m. - Sender: body" export
//     format, including multi-line continuations
//   - Extracting dates from voice-note filenames (PTT-YYYYMMDD-WAxxxx)
//   - Splicing transcription text into a transcript at attachment markers
//
// Exported transcripts embed left-to-right marks and other format runes around
// attachment names; parsing strips those before matching.
package chat
