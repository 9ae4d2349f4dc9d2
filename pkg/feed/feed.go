// Package feed renders the portal XML feed consumed by Bayut and dubizzle.
// Every text value is wrapped in CDATA so listing titles and descriptions can
// carry markup-hostile characters untouched.
package feed

import (
	"encoding/xml"
	"strconv"

	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/models"
)

// Portals the feed publishes to. Properties targeting neither are skipped.
const (
	PortalBayut    = "Bayut"
	PortalDubizzle = "dubizzle"
)

const lastUpdatedLayout = "2006-01-02 15:04:05"

type cdata struct {
	Value string `xml:",cdata"`
}

type featuresNode struct {
	Features []cdata `xml:"Feature"`
}

type imagesNode struct {
	Images []cdata `xml:"Image"`
}

type videosNode struct {
	Videos []cdata `xml:"Video"`
}

type portalsNode struct {
	Portals []cdata `xml:"Portal"`
}

// propertyNode mirrors the published feed schema. Field order is part of the
// contract and must not change.
type propertyNode struct {
	XMLName xml.Name `xml:"Property"`

	PropertyRefNo    cdata  `xml:"Property_Ref_No"`
	PermitNumber     cdata  `xml:"Permit_Number"`
	PropertyStatus   cdata  `xml:"Property_Status"`
	PropertyPurpose  cdata  `xml:"Property_purpose"`
	PropertyType     cdata  `xml:"Property_Type"`
	PropertySize     cdata  `xml:"Property_Size"`
	PropertySizeUnit cdata  `xml:"Property_Size_Unit"`
	PlotArea         cdata  `xml:"plotArea"`
	Bedrooms         cdata  `xml:"Bedrooms"`
	Bathrooms        cdata  `xml:"Bathrooms"`

	City         cdata `xml:"City"`
	Locality     cdata `xml:"Locality"`
	SubLocality  cdata `xml:"Sub_Locality"`
	TowerName    cdata `xml:"Tower_Name"`
	LocationText cdata `xml:"Locationtext"`

	PropertyTitle         cdata `xml:"Property_Title"`
	PropertyTitleAr       cdata `xml:"Property_Title_AR"`
	PropertyDescription   cdata `xml:"Property_Description"`
	PropertyDescriptionAr cdata `xml:"Property_Description_AR"`

	Price         cdata  `xml:"Price"`
	RentFrequency *cdata `xml:"Rent_Frequency,omitempty"`
	Furnished     cdata  `xml:"Furnished"`

	OffPlan              cdata  `xml:"Off_plan"`
	OffplanSaleType      *cdata `xml:"offplanDetails_saleType,omitempty"`
	OffplanDLDWaiver     *cdata `xml:"offplanDetails_dldWaiver,omitempty"`
	OffplanOriginalPrice *cdata `xml:"offplanDetails_originalPrice,omitempty"`
	OffplanAmountPaid    *cdata `xml:"offplanDetails_amountPaid,omitempty"`

	Features featuresNode `xml:"Features"`
	Images   imagesNode   `xml:"Images"`
	Videos   videosNode   `xml:"Videos"`
	Portals  portalsNode  `xml:"Portals"`

	LastUpdated cdata `xml:"Last_Updated"`
}

type feedDocument struct {
	XMLName    xml.Name `xml:"Properties"`
	Properties []propertyNode
}

// Render builds the feed document for the given properties. Properties that
// target neither published portal are skipped.
func Render(properties []models.Property) ([]byte, error) {
	doc := feedDocument{Properties: make([]propertyNode, 0, len(properties))}

	for i := range properties {
		p := &properties[i]
		if !p.Portals.Contains(PortalBayut) && !p.Portals.Contains(PortalDubizzle) {
			continue
		}
		doc.Properties = append(doc.Properties, buildPropertyNode(p))
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}

	return append([]byte(xml.Header), body...), nil
}

func buildPropertyNode(p *models.Property) propertyNode {
	bedrooms := p.Bedrooms
	// Studios always advertise zero bedrooms regardless of the stored count.
	if p.IsStudio() {
		bedrooms = 0
	}

	node := propertyNode{
		PropertyRefNo:    cdata{p.PropertyRefNo},
		PermitNumber:     cdata{p.PermitNumber},
		PropertyStatus:   cdata{p.PropertyStatus},
		PropertyPurpose:  cdata{p.PropertyPurpose},
		PropertyType:     cdata{p.PropertyType},
		PropertySize:     cdata{formatFloat(p.PropertySize)},
		PropertySizeUnit: cdata{p.PropertySizeUnit},
		PlotArea:         cdata{formatFloatPtr(p.PlotArea)},
		Bedrooms:         cdata{strconv.Itoa(bedrooms)},
		Bathrooms:        cdata{strconv.Itoa(p.Bathrooms)},

		City:         cdata{p.City},
		Locality:     cdata{p.Locality},
		SubLocality:  cdata{orEmpty(p.SubLocality)},
		TowerName:    cdata{orEmpty(p.TowerName)},
		LocationText: cdata{p.City + " - " + p.Locality},

		PropertyTitle:         cdata{p.PropertyTitle},
		PropertyTitleAr:       cdata{orFallback(p.PropertyTitleAr, p.PropertyTitle)},
		PropertyDescription:   cdata{p.PropertyDescription},
		PropertyDescriptionAr: cdata{orFallback(p.PropertyDescriptionAr, p.PropertyDescription)},

		Price:     cdata{formatFloat(p.Price)},
		Furnished: cdata{p.Furnished},

		OffPlan: cdata{yesNo(p.OffPlan)},

		Features: featuresNode{Features: toCdataList(p.Features)},
		Images:   imagesNode{Images: toCdataList(p.Images)},
		Videos:   videosNode{Videos: toCdataList(p.Videos)},
		Portals:  portalsNode{Portals: toCdataList(p.Portals)},

		LastUpdated: cdata{p.LastUpdated.Format(lastUpdatedLayout)},
	}

	// Rentals always publish a billing cadence, defaulting to yearly.
	if p.PropertyPurpose == models.PurposeRent {
		freq := models.RentFrequencyYearly
		if p.RentFrequency != nil {
			freq = *p.RentFrequency
		}
		node.RentFrequency = &cdata{freq}
	}

	if p.OffPlan {
		saleType := models.SaleTypeNew
		if p.OffplanSaleType != nil {
			saleType = *p.OffplanSaleType
		}
		node.OffplanSaleType = &cdata{saleType}

		switch saleType {
		case models.SaleTypeNew:
			waiver := 0
			if p.OffplanDLDWaiver != nil {
				waiver = *p.OffplanDLDWaiver
			}
			node.OffplanDLDWaiver = &cdata{strconv.Itoa(waiver)}
		case models.SaleTypeResale:
			node.OffplanOriginalPrice = &cdata{formatFloatPtrZero(p.OffplanOriginalPrice)}
			node.OffplanAmountPaid = &cdata{formatFloatPtrZero(p.OffplanAmountPaid)}
		}
	}

	return node
}

func toCdataList(values models.StringList) []cdata {
	items := make([]cdata, 0, len(values))
	for _, v := range values {
		items = append(items, cdata{v})
	}
	return items
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatFloatPtr(value *float64) string {
	if value == nil {
		return ""
	}
	return formatFloat(*value)
}

func formatFloatPtrZero(value *float64) string {
	if value == nil {
		return "0"
	}
	return formatFloat(*value)
}

func orEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func orFallback(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}

func yesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}
