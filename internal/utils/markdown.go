package utils

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	// 文章正文：标题带锚点，允许图片
	articleMD = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)
	// 评论：保留换行，不生成锚点
	commentMD = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)

	articlePolicy = bluemonday.UGCPolicy()
	commentPolicy = bluemonday.NewPolicy()
)

func init() {
	articlePolicy.AllowImages()
	articlePolicy.RequireNoReferrerOnLinks(true)

	// 评论只允许基本排版，外链一律 nofollow，不允许图片和标题
	commentPolicy.AllowStandardURLs()
	commentPolicy.AllowAttrs("href").OnElements("a")
	commentPolicy.AllowElements("p", "br", "strong", "em", "del", "code", "pre", "blockquote", "ul", "ol", "li")
	commentPolicy.RequireNoFollowOnLinks(true)
	commentPolicy.RequireNoReferrerOnLinks(true)
}

func render(md goldmark.Markdown, p *bluemonday.Policy, source string) (template.HTML, bool) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source)), false
	}
	return template.HTML(p.SanitizeBytes(buf.Bytes())), true
}

// RenderMarkdown converts an article body to sanitized HTML with lazy images.
func RenderMarkdown(source string) template.HTML {
	out, ok := render(articleMD, articlePolicy, source)
	if !ok {
		return out
	}
	return EnhanceHTMLContent(string(out))
}

// RenderComment converts comment markdown to sanitized HTML.
func RenderComment(source string) template.HTML {
	out, ok := render(commentMD, commentPolicy, source)
	if !ok {
		return out
	}
	return EnhanceHTMLContent(string(out))
}
