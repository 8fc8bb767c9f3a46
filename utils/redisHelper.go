package utils

import (
	"fmt"
	"reflect"

	"bitbucket.org/mmdatafocus/fulfillment_backend/config"
)

/* generic functions */

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

/* Redis */

// store instance, keyed Type:$tenant:$id, obj should be a pointer
func StoreRedis[T any](obj any, tenantId string, id int) error {
	key := GetTypeName[T]() + ":" + tenantId + ":" + fmt.Sprint(id)
	return config.SetRedisObject(key, &obj, GetCacheLifespan())
}

// get from redis
// returns nil if does not exist
func RetrieveRedis[T any](tenantId string, id int) (*T, error) {
	var result *T
	key := GetTypeName[T]() + ":" + tenantId + ":" + fmt.Sprint(id)
	exists, err := config.GetRedisObject(key, &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

// remove an instance, Type:$tenant:$id
func RemoveRedisItem[T any](tenantId string, id int) error {
	key := GetTypeName[T]() + ":" + tenantId + ":" + fmt.Sprint(id)
	return config.RemoveRedisKey(key)
}
