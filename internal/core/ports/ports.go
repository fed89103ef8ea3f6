// Package ports declares the contracts between the grant tagging core and its adapters.
package ports
