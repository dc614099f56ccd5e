// Package browser opens vendor product pages in the operator's default
// browser, where the scraper extension picks them up. The Opener interface
// exists so the update and batch flows can be tested without launching
// anything.
package browser
