package handlers

import (
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"inkblog/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	sitemapLimit = 500
	feedLimit    = 20
)

type SEOHandler struct {
	site *Site
}

func NewSEOHandler(site *Site) *SEOHandler {
	return &SEOHandler{site: site}
}

func (h *SEOHandler) siteURL() string {
	return strings.TrimRight(h.site.Config.URL, "/")
}

// RobotsTxt 返回 robots.txt 内容
func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /

Disallow: /admin/
Disallow: /preview/
Disallow: /comment/
Disallow: /login
Disallow: /signup

Sitemap: %s/sitemap.xml
`, h.siteURL())

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

// SitemapXML 动态生成 sitemap.xml
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	ctx := c.Request.Context()
	siteURL := h.siteURL()
	now := time.Now().Format("2006-01-02")

	articles, err := h.site.Blog.RecentPublished(ctx, sitemapLimit)
	if err != nil {
		h.site.Fail(c, err)
		return
	}
	categories, err := h.site.Blog.ActiveCategories(ctx)
	if err != nil {
		h.site.Fail(c, err)
		return
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
`)
	writeURL := func(loc, lastmod, changefreq string, priority float64) {
		fmt.Fprintf(&b, `  <url>
    <loc>%s</loc>
    <lastmod>%s</lastmod>
    <changefreq>%s</changefreq>
    <priority>%.1f</priority>
  </url>
`, escapeXML(loc), lastmod, changefreq, priority)
	}

	writeURL(siteURL+"/", now, "daily", 1.0)

	for _, cat := range categories {
		writeURL(siteURL+"/category/"+cat.Slug, now, "daily", 0.7)
	}

	for _, a := range articles {
		// 新文章优先级更高
		days := time.Since(a.Publish).Hours() / 24
		priority, changefreq := 0.6, "weekly"
		if days < 7 {
			priority, changefreq = 0.8, "daily"
		} else if days < 30 {
			priority = 0.7
		}
		writeURL(siteURL+"/article/"+a.Slug, a.UpdatedAt.Format("2006-01-02"), changefreq, priority)
	}

	b.WriteString(`</urlset>`)

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, b.String())
}

// RSSFeed 生成 RSS 2.0 feed
func (h *SEOHandler) RSSFeed(c *gin.Context) {
	siteURL := h.siteURL()

	articles, err := h.site.Blog.RecentPublished(c.Request.Context(), feedLimit)
	if err != nil {
		h.site.Fail(c, err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">
  <channel>
    <title>%s</title>
    <link>%s</link>
    <description>%s</description>
    <lastBuildDate>%s</lastBuildDate>
    <atom:link href="%s/feed.xml" rel="self" type="application/rss+xml"/>
`, escapeXML(h.site.Config.Name), siteURL, escapeXML(h.site.Config.Name), time.Now().Format(time.RFC1123Z), siteURL)

	for _, a := range articles {
		link := siteURL + "/article/" + a.Slug
		summary := utils.PlainText(string(utils.RenderMarkdown(a.Description)), 300)
		fmt.Fprintf(&b, `    <item>
      <title>%s</title>
      <link>%s</link>
      <description>%s</description>
      <pubDate>%s</pubDate>
      <guid isPermaLink="true">%s</guid>
    </item>
`, escapeXML(a.Title), link, escapeXML(summary), a.Publish.Format(time.RFC1123Z), link)
	}

	b.WriteString(`  </channel>
</rss>`)

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.String(http.StatusOK, b.String())
}

// Healthz 存活检查
func (h *SEOHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// escapeXML 转义XML特殊字符
func escapeXML(s string) string {
	return html.EscapeString(s)
}
