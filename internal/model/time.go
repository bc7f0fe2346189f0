package model

import (
	"bytes"
	"time"
)

// LocalTime 以 "YYYY-MM-DD HH:MM:SS" 格式序列化时间，零值输出 null。
type LocalTime time.Time

const timeFormat = "2006-01-02 15:04:05"

// LocalTimePtr 把可空时间转换为可空 LocalTime。
func LocalTimePtr(t *time.Time) *LocalTime {
	if t == nil {
		return nil
	}
	lt := LocalTime(*t)
	return &lt
}

func (t LocalTime) String() string {
	return time.Time(t).Format(timeFormat)
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	if time.Time(t).IsZero() {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, len(timeFormat)+2)
	buf = append(buf, '"')
	buf = time.Time(t).AppendFormat(buf, timeFormat)
	return append(buf, '"'), nil
}

func (t *LocalTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		*t = LocalTime(time.Time{})
		return nil
	}
	parsed, err := time.ParseInLocation(`"`+timeFormat+`"`, string(data), time.Local)
	if err != nil {
		return err
	}
	*t = LocalTime(parsed)
	return nil
}
