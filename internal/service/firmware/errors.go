package firmware

import "errors"

var (
	// ErrInvalidVersion is returned for strings not matching MAJOR.MINOR.PATCH.
	ErrInvalidVersion = errors.New("firmware: version must follow MAJOR.MINOR.PATCH")

	// ErrVersionRange is returned when MINOR or PATCH exceeds a single
	// decimal digit. The packed storage encoding cannot represent wider
	// fields without corrupting them, so the codec refuses instead.
	ErrVersionRange = errors.New("firmware: minor and patch must be between 0 and 9")

	// ErrInvalidStatus is returned for unknown build statuses.
	ErrInvalidStatus = errors.New("firmware: status must be BUILDING, SUCCESS or FAILED")

	// ErrForbidden is returned when a build exists but its repository
	// belongs to another user.
	ErrForbidden = errors.New("firmware: build belongs to another user")

	errMissingRepository = errors.New("firmware: repository id required")
	errMissingBuildID    = errors.New("firmware: build id required")
	errMissingDeviceID   = errors.New("firmware: device id required")
)
