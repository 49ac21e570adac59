package pagination

import (
	"errors"
	"net/url"
	"strconv"

	"terminal-terrace/foodgram/config"
	"terminal-terrace/foodgram/pkg/response"

	"github.com/gin-gonic/gin"
)

var ErrInvalidPage = errors.New("无效的页码")

// maxPage 页码上限, 超出的页码按上限处理, 保证偏移量不溢出
const maxPage = 1 << 20

// Params 分页参数, Page 从 1 开始
type Params struct {
	Page  int
	Limit int
}

// Offset 数据库偏移量
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// FromRequest 读取 page 与 limit 查询参数, 非法值回退为默认值
func FromRequest(c *gin.Context) Params {
	defaultSize, maxSize := 6, 100
	if config.Conf != nil {
		defaultSize = config.Conf.Pagination.PageSize
		maxSize = config.Conf.Pagination.MaxPageSize
	}
	return parse(c.Query("page"), c.Query("limit"), defaultSize, maxSize)
}

func parse(pageStr, limitStr string, defaultSize, maxSize int) Params {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		limit = defaultSize
	}
	if limit > maxSize {
		limit = maxSize
	}
	return Params{Page: page, Limit: limit}
}

// Check 页码超出范围时返回 ErrInvalidPage, 第一页总是合法
func (p Params) Check(count int64) error {
	if p.Page == 1 {
		return nil
	}
	if int64(p.Page-1)*int64(p.Limit) >= count {
		return ErrInvalidPage
	}
	return nil
}

// NewPage 组装分页结果, next/previous 为绝对地址
func NewPage(c *gin.Context, p Params, count int64, results any) response.Page {
	base := requestURL(c)
	page := response.Page{Count: count, Results: results}

	if int64(p.Page)*int64(p.Limit) < count {
		next := withPage(base, p.Page+1)
		page.Next = &next
	}
	if p.Page > 1 {
		prev := withPage(base, p.Page-1)
		page.Previous = &prev
	}
	return page
}

func requestURL(c *gin.Context) url.URL {
	u := *c.Request.URL
	u.Scheme = "http"
	if c.Request.TLS != nil {
		u.Scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		u.Scheme = proto
	}
	u.Host = c.Request.Host
	return u
}

// withPage 第一页不带 page 参数
func withPage(u url.URL, page int) string {
	q := u.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
