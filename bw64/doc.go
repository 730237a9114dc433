// SPDX-License-Identifier: EPL-2.0

// Package bw64 reads and writes BW64 (ITU-R BS.2088) WAVE files: the
// usual RIFF structure plus the axml chunk carrying ADM metadata and
// the chna chunk binding tracks to audioTrackUIDs. RF64/BW64 64-bit
// headers are accepted on input; output files use 32-bit RIFF sizes.
package bw64
