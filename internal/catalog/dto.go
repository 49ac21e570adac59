package catalog

// CreateTagRequest 创建标签请求, slug 为空时由名称生成
type CreateTagRequest struct {
	Name  string `json:"name" binding:"required,max=200"`
	Color string `json:"color" binding:"required,hexcolor,len=7"`
	Slug  string `json:"slug" binding:"omitempty,max=200"`
}
