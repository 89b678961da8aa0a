package store

// StorageError is returned for every failing backend or codec call, match
// it with errors.Is against ErrStorageRead or ErrStorageWrite.
type StorageError struct {
	Kind error
	Key  string
	Err  error
}

func (e *StorageError) Error() string {
	return e.Kind.Error() + " for " + e.Key + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
