package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for catalog documents.
const DefaultIndexName = "storefront_catalog"

// buildIndexMapping returns the JSON mapping for the catalog index. Variants
// and their per-group prices are nested so that every variant filter is
// evaluated against a single variant.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "id":              { "type": "keyword" },
      "store_id":        { "type": "keyword" },
      "name":            { "type": "wildcard", "fields": { "sort": { "type": "keyword", "ignore_above": 512 } } },
      "slug":            { "type": "keyword" },
      "description":     { "type": "wildcard" },
      "category_id":     { "type": "keyword" },
      "sub_category_id": { "type": "keyword" },
      "brand_id":        { "type": "keyword" },
      "is_archived":     { "type": "boolean" },
      "is_hot_deal":     { "type": "boolean" },
      "created_at":      { "type": "date" },
      "updated_at":      { "type": "date" },
      "ratings": {
        "properties": {
          "average_rating":    { "type": "float" },
          "number_of_ratings": { "type": "integer" }
        }
      },
      "variants": {
        "type": "nested",
        "properties": {
          "id":         { "type": "keyword" },
          "product_id": { "type": "keyword" },
          "sku":        { "type": "keyword" },
          "color_id":   { "type": "keyword" },
          "size_id":    { "type": "keyword" },
          "stock":      { "type": "integer" },
          "is_active":  { "type": "boolean" },
          "created_at": { "type": "date" },
          "images":     { "type": "object", "enabled": false },
          "prices": {
            "type": "nested",
            "properties": {
              "id":                { "type": "keyword" },
              "variant_id":        { "type": "keyword" },
              "location_group_id": { "type": "keyword" },
              "price":             { "type": "long" },
              "mrp":               { "type": "long" }
            }
          }
        }
      }
    }
  }
}`
}
