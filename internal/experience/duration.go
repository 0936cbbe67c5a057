// Package experience 将经历文本中的日期区间解析为月数
package experience

import (
	"math"
	"regexp"
	"strings"
	"time"

	"retractor-go/internal/textnorm"
)

// monthYearLayout 起止日期统一解析为 "Jan 2006" 格式
const monthYearLayout = "Jan 2006"

// dateRange 匹配 "<起始月 年> <分隔符或to> <结束月 年或present>"
var dateRange = regexp.MustCompile(`(?i)(?P<fmonth>\w+.\d+)` + textnorm.SpaceClass + `*(\D|to)` +
	textnorm.SpaceClass + `*(?P<smonth>\w+.\d+|present)`)

var (
	startGroup = dateRange.SubexpIndex("fmonth")
	endGroup   = dateRange.SubexpIndex("smonth")
)

// TotalMonths 统计所有行中日期区间的总月数
// 每行只取第一个匹配；无法解析的片段计为0
func TotalMonths(lines []string, now time.Time) int {
	total := 0
	for _, line := range lines {
		m := dateRange.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		total += MonthsBetween(m[startGroup], m[endGroup], now)
	}
	return total
}

// MonthsBetween 计算两个 "月 年" 片段之间相差的月数
// end 为 present 时取 now 所在月份；起止颠倒或格式不符时返回0
func MonthsBetween(start, end string, now time.Time) int {
	if strings.EqualFold(end, "present") {
		end = now.Format(monthYearLayout)
	}

	start, ok := abbreviate(start)
	if !ok {
		return 0
	}
	end, ok = abbreviate(end)
	if !ok {
		return 0
	}

	from, err := time.Parse(monthYearLayout, start)
	if err != nil {
		return 0
	}
	to, err := time.Parse(monthYearLayout, end)
	if err != nil {
		return 0
	}

	months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
	if months < 0 {
		return 0
	}
	return months
}

// Years 将月数换算为年，保留两位小数
func Years(months int) float64 {
	if months <= 0 {
		return 0
	}
	return math.Round(float64(months)/12*100) / 100
}

// abbreviate 将月份全称截断为三个字母的缩写，例如 "January 2019" -> "Jan 2019"
// 首个单词超过三个字母但缺少年份部分时视为无法解析
func abbreviate(fragment string) (string, bool) {
	fields := textnorm.Fields(fragment)
	if len(fields) == 0 {
		return "", false
	}
	if len(fields[0]) <= 3 {
		return strings.Join(fields, " "), true
	}
	if len(fields) < 2 {
		return "", false
	}
	return fields[0][:3] + " " + fields[1], true
}
