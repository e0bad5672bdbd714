package cardconfig

const cardSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "id": {"type": "string"},
    "type": {"type": "string"},
    "entity": {"type": "string"},
    "title": {"type": "string"},
    "bars": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "align": {"enum": ["evenly", "between"]},
          "items": {"type": "array", "items": {"$ref": "#/definitions/button"}}
        }
      }
    }
  },
  "definitions": {
    "actionType": {"enum": ["app", "key", "command", "source", "custom"]},
    "button": {
      "type": "object",
      "properties": {
        "icon": {"type": "string"},
        "iconExpression": {"type": "string"},
        "iconOff": {"type": "string"},
        "title": {"type": "string"},
        "disabledExpression": {"type": "string"},
        "disabled": {"type": "string"},
        "actionType": {"$ref": "#/definitions/actionType"},
        "type": {"$ref": "#/definitions/actionType"},
        "value": {"type": ["string", "number"]}
      }
    }
  }
}`
