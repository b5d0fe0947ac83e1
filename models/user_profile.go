package models

// UserProfile defines the structure for user profiles
type UserProfile struct {
	UserID   string `dynamodbav:"userId" json:"userId"`
	FullName string `dynamodbav:"fullName,omitempty" json:"fullName,omitempty"`
	Headline string `dynamodbav:"headline,omitempty" json:"headline,omitempty"`
	PhotoKey string `dynamodbav:"photoKey,omitempty" json:"-"`
	PhotoURL string `dynamodbav:"-" json:"photoURL,omitempty"`

	// Personal contact details, hidden under the "work" sharing category
	PersonalEmail string   `dynamodbav:"personalEmail,omitempty" json:"personalEmail,omitempty"`
	Phone         string   `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
	Socials       []string `dynamodbav:"socials,omitempty" json:"socials,omitempty"`

	// Work details, hidden under the "personal" sharing category
	Company   string `dynamodbav:"company,omitempty" json:"company,omitempty"`
	JobTitle  string `dynamodbav:"jobTitle,omitempty" json:"jobTitle,omitempty"`
	WorkEmail string `dynamodbav:"workEmail,omitempty" json:"workEmail,omitempty"`
}

// FilteredForCategory returns a copy of the profile limited to the fields the
// given sharing category exposes to the counterpart.
func (p UserProfile) FilteredForCategory(category string) *UserProfile {
	out := p
	switch category {
	case CategoryPersonal:
		out.Company = ""
		out.JobTitle = ""
		out.WorkEmail = ""
	case CategoryWork:
		out.PersonalEmail = ""
		out.Phone = ""
		out.Socials = nil
	}
	return &out
}

// PreviewFields returns the limited view shown to unauthenticated viewers of
// a waiting record: enough to recognize who displayed the code, nothing more.
func (p UserProfile) PreviewFields() *UserProfile {
	return &UserProfile{
		UserID:   p.UserID,
		FullName: p.FullName,
		Headline: p.Headline,
		PhotoURL: p.PhotoURL,
	}
}
