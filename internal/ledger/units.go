// Package ledger holds the stock and portion rules: unit conversion,
// product reservations, recipe requirements, portion production and order
// fulfillment. Nothing here touches storage; callers load the rows under a
// lock, apply these functions, and persist the result.
package ledger

import "restaurant-ledger/internal/models"

type unitPair struct {
	from, to models.Unit
}

// Pieces are converted with an average weight of 100 g per piece.
var conversionRates = map[unitPair]float64{
	{models.UnitKilograms, models.UnitGrams}:    1000,
	{models.UnitGrams, models.UnitKilograms}:    0.001,
	{models.UnitLiters, models.UnitMilliliters}: 1000,
	{models.UnitMilliliters, models.UnitLiters}: 0.001,
	{models.UnitPieces, models.UnitKilograms}:   0.1,
	{models.UnitKilograms, models.UnitPieces}:   10,
	{models.UnitPieces, models.UnitGrams}:       100,
	{models.UnitGrams, models.UnitPieces}:       0.01,
}

// ConversionFactor returns the multiplier from one unit to another and
// whether the pair is defined. Equal units always convert with factor 1.
func ConversionFactor(from, to models.Unit) (float64, bool) {
	if from == to {
		return 1, true
	}
	factor, ok := conversionRates[unitPair{from, to}]
	return factor, ok
}

// Convert expresses quantity in the target unit. An undefined pair passes
// the quantity through unchanged; use ConvertStrict to detect that case.
func Convert(quantity float64, from, to models.Unit) float64 {
	factor, ok := ConversionFactor(from, to)
	if !ok {
		return quantity
	}
	return quantity * factor
}

// ConvertStrict is Convert that reports undefined pairs.
func ConvertStrict(quantity float64, from, to models.Unit) (float64, bool) {
	factor, ok := ConversionFactor(from, to)
	if !ok {
		return quantity, false
	}
	return quantity * factor, true
}
