// Package colorist implements the core of a colour-management conversion
// pipeline: it converts pixel data between colour spaces honoring
// ICC-style profiles (primaries + transfer curve + luminance), applies
// optional luminance rescaling with tone mapping, and optionally
// post-processes the result through a Hald CLUT.
//
// Profiles built from a Gamma, HLG, or PQ transfer curve are handled by a
// built-in colour-math path. ICC-backed profiles are delegated to the
// external colour-management module implemented in internal/cmm, which
// handles matrix/TRC and gray/TRC profiles with arbitrary curves;
// LUT-based profiles are rejected with an error.
package colorist
