// Package markdown renders note bodies to HTML with the diagram image hook
// installed, and splits YAML front matter from note sources.
package markdown
