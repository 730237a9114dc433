// SPDX-License-Identifier: EPL-2.0

// Package adm models the Audio Definition Model (ITU-R BS.2076)
// metadata carried by BW64 files: the resolved element graph, the four
// audioBlockFormat variants, exact block timing, AXML parsing and
// generation, CHNA binding, and the common-definitions catalogue.
//
// Documents are built either by Parse, which reads an AXML chunk, or
// programmatically starting from NewDocument. After construction the
// graph is immutable during rendering.
package adm
