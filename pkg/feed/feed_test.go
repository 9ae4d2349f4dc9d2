package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/models"
)

func feedProperty(refNo string) models.Property {
	return models.Property{
		PropertyRefNo:       refNo,
		PermitNumber:        refNo,
		PropertyStatus:      models.StatusLive,
		PropertyPurpose:     models.PurposeSale,
		PropertyType:        "Apartment",
		PropertySize:        1200,
		PropertySizeUnit:    "SQFT",
		Bedrooms:            2,
		Bathrooms:           2,
		City:                "Dubai",
		Locality:            "Downtown Dubai",
		PropertyTitle:       "Marina View 2BR",
		PropertyDescription: "Two bedroom apartment",
		Price:               850000,
		Furnished:           models.FurnishedNo,
		Features:            models.StringList{"Pool", "Gym"},
		Images:              models.StringList{"https://cdn.example.com/1.jpg"},
		Videos:              models.StringList{},
		Portals:             models.StringList{"Bayut", "dubizzle"},
		ListingAgent:        "Jane Agent",
		ListingAgentPhone:   "+971-50-000-0000",
		ListingAgentEmail:   "jane@agency.com",
		LastUpdated:         time.Date(2026, 7, 15, 8, 30, 0, 0, time.UTC),
	}
}

func TestRenderBasicDocument(t *testing.T) {
	out, err := Render([]models.Property{feedProperty("U-1")})
	require.NoError(t, err)

	xml := string(out)
	assert.True(t, strings.HasPrefix(xml, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, xml, "<Properties>")
	assert.Contains(t, xml, "<Property_Ref_No><![CDATA[U-1]]></Property_Ref_No>")
	assert.Contains(t, xml, "<Property_purpose><![CDATA[Sale]]></Property_purpose>")
	assert.Contains(t, xml, "<Property_Size><![CDATA[1200]]></Property_Size>")
	assert.Contains(t, xml, "<Locationtext><![CDATA[Dubai - Downtown Dubai]]></Locationtext>")
	assert.Contains(t, xml, "<Feature><![CDATA[Pool]]></Feature>")
	assert.Contains(t, xml, "<Image><![CDATA[https://cdn.example.com/1.jpg]]></Image>")
	assert.Contains(t, xml, "<Portal><![CDATA[Bayut]]></Portal>")
	assert.Contains(t, xml, "<Last_Updated><![CDATA[2026-07-15 08:30:00]]></Last_Updated>")
	assert.Contains(t, xml, "<Off_plan><![CDATA[No]]></Off_plan>")
	assert.NotContains(t, xml, "Rent_Frequency")
	assert.NotContains(t, xml, "offplanDetails")
}

func TestRenderSkipsUnpublishedPortals(t *testing.T) {
	published := feedProperty("U-PUB")
	private := feedProperty("U-PRIV")
	private.Portals = models.StringList{"internal"}

	out, err := Render([]models.Property{published, private})
	require.NoError(t, err)

	xml := string(out)
	assert.Contains(t, xml, "U-PUB")
	assert.NotContains(t, xml, "U-PRIV")
}

func TestRenderArabicFallsBackToPrimaryLocale(t *testing.T) {
	p := feedProperty("U-1")
	titleAr := "شقة بإطلالة على المارينا"
	p.PropertyTitleAr = &titleAr

	out, err := Render([]models.Property{p})
	require.NoError(t, err)

	xml := string(out)
	assert.Contains(t, xml, "<Property_Title_AR><![CDATA["+titleAr+"]]></Property_Title_AR>")
	// Description has no Arabic translation, so the primary text is reused.
	assert.Contains(t, xml, "<Property_Description_AR><![CDATA[Two bedroom apartment]]></Property_Description_AR>")
}

func TestRenderRentalFrequencyDefaultsToYearly(t *testing.T) {
	monthly := models.RentFrequencyMonthly

	t.Run("explicit frequency is kept", func(t *testing.T) {
		p := feedProperty("U-1")
		p.PropertyPurpose = models.PurposeRent
		p.RentFrequency = &monthly

		out, err := Render([]models.Property{p})
		require.NoError(t, err)
		assert.Contains(t, string(out), "<Rent_Frequency><![CDATA[Monthly]]></Rent_Frequency>")
	})

	t.Run("missing frequency renders yearly", func(t *testing.T) {
		p := feedProperty("U-1")
		p.PropertyPurpose = models.PurposeRent

		out, err := Render([]models.Property{p})
		require.NoError(t, err)
		assert.Contains(t, string(out), "<Rent_Frequency><![CDATA[Yearly]]></Rent_Frequency>")
	})
}

func TestRenderStudioBedrooms(t *testing.T) {
	p := feedProperty("U-1")
	p.PropertyType = models.PropertyTypeStudio
	p.Bedrooms = 2

	out, err := Render([]models.Property{p})
	require.NoError(t, err)
	assert.Contains(t, string(out), "<Bedrooms><![CDATA[0]]></Bedrooms>")
}

func TestRenderOffplanDetails(t *testing.T) {
	t.Run("new sale type renders waiver", func(t *testing.T) {
		saleType := models.SaleTypeNew
		waiver := 1
		p := feedProperty("U-1")
		p.OffPlan = true
		p.OffplanSaleType = &saleType
		p.OffplanDLDWaiver = &waiver

		out, err := Render([]models.Property{p})
		require.NoError(t, err)

		xml := string(out)
		assert.Contains(t, xml, "<Off_plan><![CDATA[Yes]]></Off_plan>")
		assert.Contains(t, xml, "<offplanDetails_saleType><![CDATA[New]]></offplanDetails_saleType>")
		assert.Contains(t, xml, "<offplanDetails_dldWaiver><![CDATA[1]]></offplanDetails_dldWaiver>")
		assert.NotContains(t, xml, "offplanDetails_originalPrice")
		assert.NotContains(t, xml, "offplanDetails_amountPaid")
	})

	t.Run("resale sale type renders price pair", func(t *testing.T) {
		saleType := models.SaleTypeResale
		original := float64(900000)
		paid := float64(90000)
		p := feedProperty("U-1")
		p.OffPlan = true
		p.OffplanSaleType = &saleType
		p.OffplanOriginalPrice = &original
		p.OffplanAmountPaid = &paid

		out, err := Render([]models.Property{p})
		require.NoError(t, err)

		xml := string(out)
		assert.Contains(t, xml, "<offplanDetails_saleType><![CDATA[Resale]]></offplanDetails_saleType>")
		assert.Contains(t, xml, "<offplanDetails_originalPrice><![CDATA[900000]]></offplanDetails_originalPrice>")
		assert.Contains(t, xml, "<offplanDetails_amountPaid><![CDATA[90000]]></offplanDetails_amountPaid>")
		assert.NotContains(t, xml, "offplanDetails_dldWaiver")
	})
}

func TestRenderEmptyLists(t *testing.T) {
	p := feedProperty("U-1")
	p.Features = models.StringList{}
	p.Images = models.StringList{}

	out, err := Render([]models.Property{p})
	require.NoError(t, err)

	xml := string(out)
	assert.Contains(t, xml, "<Features>")
	assert.Contains(t, xml, "<Images>")
	assert.NotContains(t, xml, "<Feature>")
	assert.NotContains(t, xml, "<Image>")
}
