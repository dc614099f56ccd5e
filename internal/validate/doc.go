// Package validate decides whether a scraped result may be committed to the
// record store. Batch mode runs the full rule pipeline including the hard
// price-change ceiling; interactive mode runs the same pipeline without the
// ceiling and instead reports asymmetric alert thresholds for the human to
// judge. Validation is a pure function of its inputs so identical
// record/result pairs always produce the same verdict and reason.
package validate
