// Package sanitizer normalizes free-form input before it is validated,
// priced or stored.
//
// All functions are idempotent. Invalid input yields an empty string or an
// empty slice rather than an error.
//
// Normalization includes:
//   - Keys (brands, categories): lowercase, non letters/digits collapsed to "_",
//     so "Premium Laptop" and "premium-laptop" both become "premium_laptop"
//   - Text (reasons, notes): collapse whitespace, trim, cap length
//   - IDs: trim, drop empties and duplicates while keeping order
//   - Numbers: clamp to valid ranges
package sanitizer
