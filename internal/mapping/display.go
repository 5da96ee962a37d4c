package mapping

import (
	"encoding/xml"
	"strings"
)

// Display holds the profile-independent citation fields of a record.
type Display struct {
	Creator   string
	Title     string
	Publisher string
	Date      string
	Type      string
}

// Field returns the display value for a mapped column suffix such as
// "Creator" or "title". Unknown names yield "".
func (d Display) Field(name string) string {
	switch strings.ToLower(name) {
	case "creator":
		return d.Creator
	case "title":
		return d.Title
	case "publisher":
		return d.Publisher
	case "date":
		return d.Date
	case "type":
		return d.Type
	default:
		return ""
	}
}

// Map derives display fields from a normalized record according to its
// declared profile.
func Map(record map[string]string) Display {
	switch record[FieldProfile] {
	case "datacite":
		if d, ok := mapDataCiteFields(record); ok {
			return d
		}
		if doc := record["datacite"]; doc != "" {
			if d, err := parseDataCite(doc); err == nil {
				return d
			}
		}
		return Display{}
	case "dc":
		return Display{
			Creator:   record["dc.creator"],
			Title:     record["dc.title"],
			Publisher: record["dc.publisher"],
			Date:      record["dc.date"],
			Type:      record["dc.type"],
		}
	default:
		return Display{
			Creator: record["erc.who"],
			Title:   record["erc.what"],
			Date:    record["erc.when"],
		}
	}
}

func mapDataCiteFields(record map[string]string) (Display, bool) {
	d := Display{
		Creator:   record["datacite.creator"],
		Title:     record["datacite.title"],
		Publisher: record["datacite.publisher"],
		Date:      record["datacite.publicationyear"],
		Type:      record["datacite.resourcetype"],
	}
	return d, d != Display{}
}

type dataCiteResource struct {
	Creators []struct {
		Name string `xml:"creatorName"`
	} `xml:"creators>creator"`
	Titles []struct {
		Value string `xml:",chardata"`
	} `xml:"titles>title"`
	Publisher       string `xml:"publisher"`
	PublicationYear string `xml:"publicationYear"`
	ResourceType    struct {
		General string `xml:"resourceTypeGeneral,attr"`
		Value   string `xml:",chardata"`
	} `xml:"resourceType"`
}

func parseDataCite(doc string) (Display, error) {
	var res dataCiteResource
	if err := xml.Unmarshal([]byte(doc), &res); err != nil {
		return Display{}, err
	}
	d := Display{
		Publisher: strings.TrimSpace(res.Publisher),
		Date:      strings.TrimSpace(res.PublicationYear),
	}
	if len(res.Creators) > 0 {
		names := make([]string, 0, len(res.Creators))
		for _, c := range res.Creators {
			if name := strings.TrimSpace(c.Name); name != "" {
				names = append(names, name)
			}
		}
		d.Creator = strings.Join(names, "; ")
	}
	if len(res.Titles) > 0 {
		d.Title = strings.TrimSpace(res.Titles[0].Value)
	}
	d.Type = strings.TrimSpace(res.ResourceType.General)
	if v := strings.TrimSpace(res.ResourceType.Value); v != "" {
		if d.Type != "" {
			d.Type += "/" + v
		} else {
			d.Type = v
		}
	}
	return d, nil
}
