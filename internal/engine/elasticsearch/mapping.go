package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for product documents.
const DefaultIndexName = "products"

// buildIndexMapping returns the JSON mapping for the products index. Text
// fields use a Turkish analyzer; filterable fields carry a keyword sub-field
// for exact matching and the suggest field feeds the completion suggester.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "turkish_analyzer": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "turkish_stop", "turkish_stemmer", "asciifolding"]
        }
      },
      "filter": {
        "turkish_stop":    { "type": "stop", "stopwords": "_turkish_" },
        "turkish_stemmer": { "type": "stemmer", "language": "turkish" }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":              { "type": "keyword" },
      "brand":           { "type": "text", "analyzer": "turkish_analyzer", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "model":           { "type": "text", "analyzer": "turkish_analyzer", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "price":           { "type": "double", "coerce": true },
      "category":        { "type": "text", "analyzer": "turkish_analyzer", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "target_audience": { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "color":           { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "description":     { "type": "text", "analyzer": "turkish_analyzer" },
      "suggest":         { "type": "completion", "analyzer": "turkish_analyzer" }
    }
  }
}`
}
