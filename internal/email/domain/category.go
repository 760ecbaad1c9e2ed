package domain

// Category classifies what a school email asks of the parent
type Category string

const (
	CategoryActionRequired  Category = "Action Required"
	CategoryEventAttendance Category = "Event - Attendance"
	CategoryEventParent     Category = "Event - Parent Attendance"
	CategoryDateToNote      Category = "Date to Note"
	CategoryInfoOnly        Category = "Information Only"
	CategoryPaymentDue      Category = "Payment Due"
)

// Urgency represents how soon the parent needs to act
type Urgency string

const (
	UrgencyLow      Urgency = "Low"
	UrgencyMedium   Urgency = "Medium"
	UrgencyHigh     Urgency = "High"
	UrgencyCritical Urgency = "Critical"
)

// ParseCategory maps free-form classifier output onto a known category,
// defaulting to Information Only for anything unrecognized.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryActionRequired, CategoryEventAttendance, CategoryEventParent,
		CategoryDateToNote, CategoryInfoOnly, CategoryPaymentDue:
		return Category(s)
	}
	return CategoryInfoOnly
}

// ParseUrgency maps free-form classifier output onto a known urgency,
// defaulting to Medium.
func ParseUrgency(s string) Urgency {
	switch Urgency(s) {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return Urgency(s)
	}
	return UrgencyMedium
}
