// Package spectra handles the bookkeeping and file formats shared by the
// likelihood: cross-spectrum index maps, Xpol FITS products (cross-spectra,
// multipole ranges, inverse covariance, foreground templates), binning
// operators and spectrum smoothing.
//
// Internally all spectra are Dl in muK^2 indexed by multipole from l=0.
// The Xpol products on disk carry K^2 (spectra) and K^-4 (covariance); the
// readers apply the unit conversion so nothing downstream has to.
package spectra
