package xl

import "time"

// DocProperties holds the document metadata written to the core, extended
// and custom property parts. Built in the same value-transformation style as
// Format.
type DocProperties struct {
	Title    string
	Subject  string
	Author   string
	Manager  string
	Company  string
	Category string
	Keywords string
	Comments string

	// CreationTime is written to core.xml. When zero the save timestamp is
	// used, which makes repeated saves differ; set a fixed time for
	// reproducible output.
	CreationTime time.Time

	custom []CustomProperty
}

// CustomProperty is a user supplied name/value pair written to
// docProps/custom.xml.
type CustomProperty struct {
	Name  string
	Value string
}

func NewDocProperties() DocProperties { return DocProperties{} }

func (p DocProperties) SetTitle(v string) DocProperties    { p.Title = v; return p }
func (p DocProperties) SetSubject(v string) DocProperties  { p.Subject = v; return p }
func (p DocProperties) SetAuthor(v string) DocProperties   { p.Author = v; return p }
func (p DocProperties) SetManager(v string) DocProperties  { p.Manager = v; return p }
func (p DocProperties) SetCompany(v string) DocProperties  { p.Company = v; return p }
func (p DocProperties) SetCategory(v string) DocProperties { p.Category = v; return p }
func (p DocProperties) SetKeywords(v string) DocProperties { p.Keywords = v; return p }
func (p DocProperties) SetComments(v string) DocProperties { p.Comments = v; return p }

func (p DocProperties) SetCreationTime(t time.Time) DocProperties {
	p.CreationTime = t
	return p
}

// SetCustomProperty appends a custom document property. The receiver's
// property list is copied so previously derived values stay unchanged.
func (p DocProperties) SetCustomProperty(name, value string) DocProperties {
	custom := make([]CustomProperty, len(p.custom), len(p.custom)+1)
	copy(custom, p.custom)
	p.custom = append(custom, CustomProperty{Name: name, Value: value})
	return p
}
