package db

import "time"

// ContactSubmission 保存前台联系表单的提交记录，写入后不再修改
// （除 Notified 标记外）。
type ContactSubmission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Reference string    `gorm:"size:26;uniqueIndex;not null" json:"reference"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Company   string    `gorm:"size:100" json:"company"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	Phone     string    `gorm:"size:30" json:"phone"`
	Division  string    `gorm:"size:32" json:"division"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	ClientIP  string    `gorm:"size:64" json:"client_ip"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	Notified  bool      `gorm:"default:false" json:"notified"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 返回自定义表名
func (ContactSubmission) TableName() string {
	return "contact_submissions"
}
