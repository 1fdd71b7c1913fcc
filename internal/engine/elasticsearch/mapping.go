package elasticsearch

// DefaultIndexName is the default index for native search documents.
const DefaultIndexName = "shop_products"

// buildIndexMapping returns the JSON settings and mapping of the index.
// Attributes are a flattened object so any property or option can be
// filtered by term.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "german_analyzer": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "german_stop", "german_normalization", "german_stemmer"]
        }
      },
      "filter": {
        "german_stop": {
          "type": "stop",
          "stopwords": "_german_"
        },
        "german_stemmer": {
          "type": "stemmer",
          "language": "light_german"
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":                { "type": "keyword" },
      "name":              { "type": "text", "analyzer": "german_analyzer", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "description":       { "type": "text", "analyzer": "german_analyzer" },
      "keywords":          { "type": "text", "analyzer": "german_analyzer" },
      "manufacturer_id":   { "type": "integer" },
      "manufacturer_name": { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "category_ids":      { "type": "integer" },
      "price":             { "type": "double" },
      "attributes":        { "type": "flattened" },
      "flags":             { "type": "keyword" },
      "sales_frequency":   { "type": "integer" },
      "created_at":        { "type": "date" }
    }
  }
}`
}
