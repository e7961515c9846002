package model

import "time"

// DeliveryLog tracks each send attempt.
type DeliveryLog struct {
	ID        uint64    `json:"id"`
	Device    string    `json:"device"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Priority  int       `json:"priority"`
	Sound     string    `json:"sound"`
	Result    string    `json:"result"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DeliveryLogFilter describes query parameters for log searching.
type DeliveryLogFilter struct {
	Device    string
	Status    string
	BeginTime *time.Time
	EndTime   *time.Time
	Page      int
	PageSize  int
}

// DeliveryLogPage is a single page of delivery logs.
type DeliveryLogPage struct {
	Data     []*DeliveryLog `json:"data"`
	Total    int            `json:"total"`
	Pages    int            `json:"pages"`
	PageNum  int            `json:"pageNum"`
	PageSize int            `json:"pageSize"`
}
