package persister

import "errors"

var (
	// ErrConfiguration wraps every construction-time failure. A persister that
	// failed with it must not be used.
	ErrConfiguration = errors.New("persister configuration error")

	ErrNilAccessor         = errors.New("accessor cannot be nil")
	ErrNilStore            = errors.New("store cannot be nil")
	ErrNilStartState       = errors.New("start state cannot be nil")
	ErrNilState            = errors.New("state cannot be nil")
	ErrUnknownStartState   = errors.New("start state is not one of the configured states")
	ErrDuplicateState      = errors.New("duplicate state name")
	ErrEntityNotComparable = errors.New("entity type must be comparable")
	ErrNotStructPointer    = errors.New("entity type must be a pointer to a struct")
	ErrNoIDField           = errors.New("no id field defined")
	ErrNoStateField        = errors.New("no state field defined")
	ErrStateFieldType      = errors.New("state field must be of type string or *string")
	ErrUnexportedField     = errors.New("tagged field must be exported")
	ErrIncompleteAccessor  = errors.New("accessor functions cannot be nil")

	// ErrAccessor reports that the identifier or state field could not be
	// read or written at call time. It is not retryable.
	ErrAccessor = errors.New("entity accessor failed")

	// ErrNotFound is returned by Store.LoadState when no row exists for the id.
	ErrNotFound = errors.New("entity not found in store")

	// ErrAlreadyExists is returned by store Insert methods when the id is taken.
	ErrAlreadyExists = errors.New("entity already exists in store")
)

// IsConfigurationError reports whether err was produced while building a persister or accessor.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsAccessorError reports whether err is an unrecoverable accessor failure.
func IsAccessorError(err error) bool {
	return errors.Is(err, ErrAccessor)
}

func configError(errs ...error) error {
	return errors.Join(append([]error{ErrConfiguration}, errs...)...)
}

func accessorError(err error) error {
	if errors.Is(err, ErrAccessor) {
		return err
	}
	return errors.Join(ErrAccessor, err)
}
