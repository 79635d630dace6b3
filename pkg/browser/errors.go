package browser

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every configuration error. Configuration
// errors abort the run before any scenario starts.
var ErrInvalidConfig = errors.New("invalid configuration")

// devicesURL lists the device descriptors playwright ships with.
const devicesURL = "https://github.com/microsoft/playwright/blob/main/packages/playwright-core/src/server/deviceDescriptorsSource.json"

// UnsupportedDeviceError is returned when a device name has no playwright descriptor.
type UnsupportedDeviceError struct {
	Device string
}

func (e *UnsupportedDeviceError) Error() string {
	return fmt.Sprintf("device %q is not supported or does not exist; see %s for the supported devices", e.Device, devicesURL)
}

func (e *UnsupportedDeviceError) Unwrap() error {
	return ErrInvalidConfig
}

// UnsupportedBrowserError is returned when a browser name does not map to a playwright browser type.
type UnsupportedBrowserError struct {
	Browser string
}

func (e *UnsupportedBrowserError) Error() string {
	return fmt.Sprintf("browser %q is not supported (must be one of %s)", e.Browser, nameChoices())
}

func (e *UnsupportedBrowserError) Unwrap() error {
	return ErrInvalidConfig
}
