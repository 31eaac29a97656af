// Package calllog records a summary of every finished conversation: a
// database row, a spreadsheet row, and a local file when the spreadsheet
// cannot be reached.
package calllog

import (
	"github.com/pitabwire/frame/data"
)

// MaxSheetConversation caps the transcript copied into a spreadsheet cell.
const MaxSheetConversation = 1000

// Entry is one logged conversation.
type Entry struct {
	data.BaseModel

	Modality     string `gorm:"type:varchar(20);not null"     json:"modality"`
	CallTime     string `gorm:"type:varchar(19);not null"     json:"call_time"`
	Phone        string `gorm:"type:varchar(15);not null;index" json:"phone_number"`
	Outcome      string `gorm:"type:varchar(20);not null"     json:"call_outcome"`
	OutletName   string `gorm:"type:varchar(255)"             json:"outlet_name"`
	BookingDate  string `gorm:"type:varchar(10)"              json:"booking_date"`
	BookingTime  string `gorm:"type:varchar(5)"               json:"booking_time"`
	CustomerName string `gorm:"type:varchar(100)"             json:"customer_name"`
	Guests       string `gorm:"type:varchar(10)"              json:"guests"`
	Summary      string `gorm:"type:text"                     json:"call_summary"`
	Conversation string `gorm:"type:text"                     json:"conversation_text"`
}

func (Entry) TableName() string { return "conversation_logs" }

// Row is the spreadsheet row for the entry. The conversation is cut to
// MaxSheetConversation characters.
func (e *Entry) Row() []any {
	conv := []rune(e.Conversation)
	if len(conv) > MaxSheetConversation {
		conv = conv[:MaxSheetConversation]
	}
	return []any{
		e.Modality,
		e.CallTime,
		e.Phone,
		e.Outcome,
		e.OutletName,
		e.BookingDate,
		e.BookingTime,
		e.Guests,
		e.Summary,
		string(conv),
	}
}
