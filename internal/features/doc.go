// Package features turns raw dataset columns into the dense design matrices
// the regressors train on: standardization, one-hot encoding, and
// reproducible train/test splits.
package features
