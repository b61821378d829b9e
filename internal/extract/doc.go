// Package extract reads store listings from the five chain websites.
//
// Each chain has an Extractor that turns one page or API response into raw
// records. The Engine runs the selected extractors in parallel, normalizes
// coordinates, infers cities, drops records whose coordinates do not
// validate and writes one table per chain.
//
// Sites covered:
//
//	OBA    oba.az/branches            HTML data attributes
//	ARAZ   arazmarket.az/az/stores    Next.js streamed payload
//	BRAVO  bravosupermarket.az        HTML articles with data attributes
//	TAM    tamstore.az/api            REST API, JSON
//	RAHAT  rahatmarket.az/az/map      embedded script variable
package extract
