package service

import "time"

const DateLayout = "2006-01-02"

// Clock 把"今天是哪天"抽象出来。值班日期的所有比较都基于配置的固定时区，
// 测试里可以注入假时钟模拟任意日期。
type Clock interface {
	Now() time.Time
	Today() string
}

type ZoneClock struct {
	loc *time.Location
}

func NewZoneClock(timezone string) (*ZoneClock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}

	return &ZoneClock{loc: loc}, nil
}

func (c *ZoneClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *ZoneClock) Today() string {
	return c.Now().Format(DateLayout)
}
