// Package dto provides shared data transfer objects for API responses.
package dto
