package mapper

import "github.com/mohamedelfert/bayut-dubizzle-xml/pkg/models"

// CRM lookup tables. The CRM exposes most listing attributes as numeric ids;
// these tables translate the known ids and every mapping falls back to a
// publishable default rather than rejecting the record.

var propertyTypeMap = map[int]string{
	1: "Apartment",
	2: "Villa",
	3: "Townhouse",
}

const defaultPropertyType = "Apartment"

var cityMap = map[int]string{
	110:   "Dubai",
	52758: "Dubai",
	52970: "Abu Dhabi",
}

const defaultCity = "Dubai"

var localityMap = map[int]string{
	53131: "Downtown Dubai",
}

const defaultLocality = "Downtown Dubai"

var subLocalityMap = map[int]string{
	53132: "Burj Khalifa Area",
}

var furnishedMap = map[int]string{
	1: models.FurnishedYes,
	2: models.FurnishedNo,
	3: models.FurnishedPartly,
}

var offeringTypeMap = map[int]string{
	1: models.SaleTypeNew,
	2: models.SaleTypeResale,
}

func mapPropertyType(purposeTypeID int) string {
	if t, ok := propertyTypeMap[purposeTypeID]; ok {
		return t
	}
	return defaultPropertyType
}

func mapStatus(availability string) string {
	if availability == "Available" {
		return models.StatusLive
	}
	return models.StatusInactive
}

func mapPurpose(purposeID, purposeTypeID int) string {
	if purposeID == 1 && purposeTypeID >= 1 && purposeTypeID <= 3 {
		return models.PurposeSale
	}
	return models.PurposeRent
}

func mapCity(cityID int) string {
	if c, ok := cityMap[cityID]; ok {
		return c
	}
	return defaultCity
}

func mapLocality(areaPlaceID int) string {
	if l, ok := localityMap[areaPlaceID]; ok {
		return l
	}
	return defaultLocality
}

func mapSubLocality(subAreaPlaceID int) *string {
	if l, ok := subLocalityMap[subAreaPlaceID]; ok {
		return &l
	}
	return nil
}

func mapFurnished(furnishingStatusID int) string {
	if f, ok := furnishedMap[furnishingStatusID]; ok {
		return f
	}
	return models.FurnishedNo
}

func mapOfferingType(offeringTypeID int) *string {
	if t, ok := offeringTypeMap[offeringTypeID]; ok {
		return &t
	}
	return nil
}

// mapRentFrequency derives the billing cadence from the installment count for
// rentals. Sale listings carry no frequency.
func mapRentFrequency(purposeID int, installments *int) *string {
	if purposeID != 1 && installments != nil {
		freq := models.RentFrequencyMonthly
		if *installments >= 12 {
			freq = models.RentFrequencyYearly
		}
		return &freq
	}
	return nil
}

// convertPrice normalizes EGP prices, which the CRM reports at 10x the listing
// value. Zero or missing prices fall back to the default.
func convertPrice(price float64, currency string) float64 {
	if currency == "EGP" {
		if price != 0 {
			return roundHalfUp(price / 10)
		}
		return defaultPrice
	}
	if price == 0 {
		return defaultPrice
	}
	return price
}

const defaultPrice = 100000
